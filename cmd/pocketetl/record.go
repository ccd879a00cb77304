package main

import "encoding/json"

// dynamicRecord holds an arbitrary JSON object's fields and implements
// envelope.Attributer/FromAttributes so the CLI can move schema-less
// records through a Chain without a compile-time struct per dataset.
type dynamicRecord struct {
	Fields map[string]any
}

func (r dynamicRecord) ToAttributes() map[string]any {
	return r.Fields
}

func (r *dynamicRecord) FromAttributes(attrs map[string]any) error {
	r.Fields = attrs
	return nil
}

func (r dynamicRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields)
}

func (r *dynamicRecord) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.Fields)
}
