package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Graph payload keys this package does not model are kept verbatim in the
// Extra map of each struct and written back on marshal, so a document round
// trips through import, persistence and publish without losing UI keys.

var declaredKeys sync.Map // reflect.Type -> map[string]struct{}

// jsonKeys returns the lower cased JSON keys declared by the struct type t,
// matching the case insensitive key matching of encoding/json.
func jsonKeys(t reflect.Type) map[string]struct{} {
	if cached, ok := declaredKeys.Load(t); ok {
		return cached.(map[string]struct{})
	}

	keys := make(map[string]struct{}, t.NumField())

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}

		if name == "" {
			name = field.Name
		}

		keys[strings.ToLower(name)] = struct{}{}
	}

	declaredKeys.Store(t, keys)

	return keys
}

// extraKeys returns the object members of data that model does not declare.
func extraKeys(data []byte, model reflect.Type) (map[string]json.RawMessage, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}

	known := jsonKeys(model)
	for key := range members {
		if _, ok := known[strings.ToLower(key)]; ok {
			delete(members, key)
		}
	}

	if len(members) == 0 {
		return nil, nil
	}

	return members, nil
}

// withExtra marshals v and adds the extra members. Declared keys always win.
func withExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}

	for key, raw := range extra {
		if _, exists := members[key]; !exists {
			members[key] = raw
		}
	}

	return json.Marshal(members)
}

func (f *FlowData) UnmarshalJSON(data []byte) error {
	type plain FlowData

	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	extra, err := extraKeys(data, reflect.TypeFor[FlowData]())
	if err != nil {
		return err
	}

	*f = FlowData(decoded)
	f.Extra = extra

	return nil
}

func (f FlowData) MarshalJSON() ([]byte, error) {
	type plain FlowData

	return withExtra(plain(f), f.Extra)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node

	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	extra, err := extraKeys(data, reflect.TypeFor[Node]())
	if err != nil {
		return err
	}

	*n = Node(decoded)
	n.Extra = extra

	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	type plain Node

	return withExtra(plain(n), n.Extra)
}

func (d *NodeData) UnmarshalJSON(data []byte) error {
	type plain NodeData

	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	extra, err := extraKeys(data, reflect.TypeFor[NodeData]())
	if err != nil {
		return err
	}

	*d = NodeData(decoded)
	d.Extra = extra

	return nil
}

func (d NodeData) MarshalJSON() ([]byte, error) {
	type plain NodeData

	return withExtra(plain(d), d.Extra)
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	type plain Edge

	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	extra, err := extraKeys(data, reflect.TypeFor[Edge]())
	if err != nil {
		return err
	}

	*e = Edge(decoded)
	e.Extra = extra

	return nil
}

func (e Edge) MarshalJSON() ([]byte, error) {
	type plain Edge

	return withExtra(plain(e), e.Extra)
}

func (f *TemplateField) UnmarshalJSON(data []byte) error {
	type plain TemplateField

	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	extra, err := extraKeys(data, reflect.TypeFor[TemplateField]())
	if err != nil {
		return err
	}

	*f = TemplateField(decoded)
	f.Extra = extra

	return nil
}

func (f TemplateField) MarshalJSON() ([]byte, error) {
	type plain TemplateField

	return withExtra(plain(f), f.Extra)
}
