package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ParseDocument decodes a plan document. Hand-edited plans are accepted in
// three passes:
//  1. Strict JSON.
//  2. Hjson (comments, unquoted keys and strings, trailing commas).
//  3. Repaired JSON for truncated or otherwise broken input.
func ParseDocument(data []byte) (*Plan, error) {
	var plan Plan

	strictErr := json.Unmarshal(data, &plan)
	if strictErr == nil {
		return &plan, nil
	}

	if converted, err := hjsonToJSON(data); err == nil {
		plan = Plan{}
		if err := json.Unmarshal(converted, &plan); err == nil {
			return &plan, nil
		}
	}

	if repaired, err := jsonrepair.RepairJSON(string(data)); err == nil {
		plan = Plan{}
		if err := json.Unmarshal([]byte(repaired), &plan); err == nil {
			return &plan, nil
		}
	}

	return nil, fmt.Errorf("plan document is not valid JSON or Hjson: %w", strictErr)
}

func hjsonToJSON(data []byte) ([]byte, error) {
	var generic interface{}
	if err := hjson.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// LoadDocument reads and decodes a plan file.
func LoadDocument(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	plan, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	return plan, nil
}

// EncodeDocument renders a plan as indented JSON.
func EncodeDocument(plan *Plan) ([]byte, error) {
	return json.MarshalIndent(plan, "", "  ")
}
