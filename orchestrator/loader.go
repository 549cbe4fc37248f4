package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// LoadTree parses a JSON task-tree document (spec §4.7) into a Node.
// The root document is expected to already be unwrapped from the public
// HTTP envelope `{"rest": <tree>}` — callers at the HTTP edge perform that
// unwrap (see httpapi) before calling LoadTree.
func LoadTree(raw []byte) (*Node, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dispatcherr.Wrap(dispatcherr.KindBadPath, err, "malformed task tree document")
	}
	return loadNode(doc)
}

func loadNode(doc map[string]json.RawMessage) (*Node, error) {
	if raw, ok := doc[tagLeafURL]; ok {
		return loadLeaf(doc, raw)
	}
	if raw, ok := doc[tagSerialGroup]; ok {
		return loadGroup(doc, raw, KindSerial)
	}
	if raw, ok := doc[tagParallelGroup]; ok {
		return loadGroup(doc, raw, KindParallel)
	}
	return nil, dispatcherr.New(dispatcherr.KindBadPath,
		"malformed task node: expected one of %q, %q, %q", tagLeafURL, tagSerialGroup, tagParallelGroup)
}

func loadLeaf(doc map[string]json.RawMessage, urlRaw json.RawMessage) (*Node, error) {
	var targetURL string
	if err := json.Unmarshal(urlRaw, &targetURL); err != nil {
		return nil, dispatcherr.Wrap(dispatcherr.KindBadPath, err, "leaf %s must be a string", tagLeafURL)
	}

	payload := map[string]any{}
	if raw, ok := doc[tagLeafPayload]; ok {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, dispatcherr.Wrap(dispatcherr.KindBadPath, err, "leaf %s must be an object", tagLeafPayload)
		}
	}

	withPipe := false
	if raw, ok := doc[tagLeafPipe]; ok {
		withPipe = true
		if len(raw) > 0 {
			var pipeObj map[string]any
			if err := json.Unmarshal(raw, &pipeObj); err == nil {
				for k, v := range pipeObj {
					if _, exists := payload[k]; !exists {
						payload[k] = v
					}
				}
			}
		}
	}

	var headers map[string]string
	if raw, ok := doc[tagLeafHeaders]; ok {
		if err := json.Unmarshal(raw, &headers); err != nil {
			return nil, dispatcherr.Wrap(dispatcherr.KindBadPath, err, "leaf %s must be a string map", tagLeafHeaders)
		}
	}

	timeout, err := loadTimeout(doc)
	if err != nil {
		return nil, err
	}

	return &Node{
		Kind:      KindLeaf,
		TargetURL: targetURL,
		Payload:   payload,
		WithPipe:  withPipe,
		Headers:   headers,
		Timeout:   timeout,
	}, nil
}

func loadGroup(doc map[string]json.RawMessage, childrenRaw json.RawMessage, kind Kind) (*Node, error) {
	var rawChildren []map[string]json.RawMessage
	if err := json.Unmarshal(childrenRaw, &rawChildren); err != nil {
		return nil, dispatcherr.Wrap(dispatcherr.KindBadPath, err, "group children must be an array")
	}
	if len(rawChildren) == 0 {
		return nil, dispatcherr.New(dispatcherr.KindBadPath, "empty child list is not allowed in a task group")
	}

	children := make([]*Node, 0, len(rawChildren))
	for i, childDoc := range rawChildren {
		child, err := loadNode(childDoc)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		children = append(children, child)
	}

	timeout, err := loadTimeout(doc)
	if err != nil {
		return nil, err
	}

	return &Node{Kind: kind, Children: children, Timeout: timeout}, nil
}

func loadTimeout(doc map[string]json.RawMessage) (time.Duration, error) {
	raw, ok := doc[tagTimeout]
	if !ok {
		return 0, nil
	}
	var seconds float64
	if err := json.Unmarshal(raw, &seconds); err != nil {
		return 0, dispatcherr.Wrap(dispatcherr.KindBadPath, err, "%s must be a number of seconds", tagTimeout)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
