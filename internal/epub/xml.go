package epub

import (
	"bytes"
	"encoding/xml"

	"golang.org/x/net/html/charset"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// NewXMLDecoder returns a decoder that tolerates a UTF-8 byte order mark and
// transcodes documents that declare a non-UTF-8 encoding.
func NewXMLDecoder(data []byte) *xml.Decoder {
	decoder := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	decoder.CharsetReader = charset.NewReaderLabel
	return decoder
}
