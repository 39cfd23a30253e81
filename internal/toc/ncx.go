package toc

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"epub2audio/internal/epub"
)

// navPoint is one raw navigation entry before filtering.
type navPoint struct {
	Title string
	Src   string
}

type frameKind int

const (
	frameOther frameKind = iota
	frameMap
	framePoint
	frameLabel
	frameText
)

type frame struct {
	kind  frameKind
	point int
}

type pointState struct {
	title    strings.Builder
	titleSet bool
	src      string
	srcSet   bool
}

// parseNCX walks the first navMap of an NCX document in pre-order. Element
// names are matched in the namespace declared by the root element.
func parseNCX(data []byte) ([]navPoint, error) {
	decoder := epub.NewXMLDecoder(data)

	var (
		namespace string
		rootSeen  bool
		inMap     bool
		mapDone   bool
		stack     []frame
		states    []*pointState
	)
	is := func(name xml.Name, local string) bool {
		return name.Local == local && name.Space == namespace
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !rootSeen {
				rootSeen = true
				namespace = t.Name.Space
			}
			parent := frame{kind: frameOther, point: -1}
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			current := frame{kind: frameOther, point: -1}
			switch {
			case !inMap && !mapDone && is(t.Name, "navMap"):
				inMap = true
				current.kind = frameMap
			case inMap && is(t.Name, "navPoint"):
				states = append(states, &pointState{})
				current = frame{kind: framePoint, point: len(states) - 1}
			case parent.kind == framePoint && is(t.Name, "navLabel"):
				current = frame{kind: frameLabel, point: parent.point}
			case parent.kind == frameLabel && is(t.Name, "text") && !states[parent.point].titleSet:
				current = frame{kind: frameText, point: parent.point}
			case parent.kind == framePoint && is(t.Name, "content") && !states[parent.point].srcSet:
				states[parent.point].src = attrValue(t, "src")
				states[parent.point].srcSet = true
			}
			stack = append(stack, current)

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch top.kind {
			case frameMap:
				inMap = false
				mapDone = true
			case frameText:
				states[top.point].titleSet = true
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			if top := stack[len(stack)-1]; top.kind == frameText {
				states[top.point].title.Write(t)
			}
		}
	}
	if !rootSeen {
		return nil, errors.New("document has no root element")
	}

	points := make([]navPoint, 0, len(states))
	for _, state := range states {
		points = append(points, navPoint{
			Title: strings.TrimSpace(state.title.String()),
			Src:   strings.TrimSpace(state.src),
		})
	}
	return points, nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, attr := range el.Attr {
		if attr.Name.Local == local && attr.Name.Space == "" {
			return attr.Value
		}
	}
	for _, attr := range el.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}
