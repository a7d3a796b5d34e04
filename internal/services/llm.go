package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// ExtractionRequest describes one schema-constrained completion.
type ExtractionRequest struct {
	Name         string // schema name reported to the model
	Description  string
	Model        string
	Instructions string
	Input        string
	Schema       map[string]any
}

// StructuredClient performs structured extraction and decodes the JSON result into out.
// Transport failures wrap ErrUpstream; undecodable output wraps ErrValidation.
type StructuredClient interface {
	Extract(ctx context.Context, req ExtractionRequest, out any) error
}

// OpenAIClient is a StructuredClient backed by the OpenAI Responses API with a strict json_schema format.
// Retries are left to the SDK defaults.
type OpenAIClient struct {
	client          openai.Client
	maxOutputTokens int64
}

func NewOpenAIClient(apiKey, baseURL string, maxOutputTokens int64) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai client: api key is empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = 2500
	}
	return &OpenAIClient{
		client:          openai.NewClient(opts...),
		maxOutputTokens: maxOutputTokens,
	}, nil
}

func (c *OpenAIClient) Extract(ctx context.Context, req ExtractionRequest, out any) error {
	if req.Model == "" {
		return fmt.Errorf("%w: extract %s: model is empty", ErrUpstream, req.Name)
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        req.Name,
			Schema:      req.Schema,
			Strict:      openai.Bool(true),
			Description: openai.String(req.Description),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           req.Model,
		MaxOutputTokens: openai.Int(c.maxOutputTokens),
		Instructions:    openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return fmt.Errorf("%w: extract %s: %v", ErrUpstream, req.Name, err)
	}
	if err := decodeModelJSON(resp.OutputText(), out); err != nil {
		return fmt.Errorf("%w: extract %s: %v", ErrValidation, req.Name, err)
	}
	return nil
}

// GenerateSchema reflects T into a JSON schema accepted by strict structured outputs.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	// The top-level $schema and $id keys are not part of the response format contract.
	delete(schemaObj, "$schema")
	delete(schemaObj, "$id")
	ensureOpenAICompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureOpenAICompliance marks every object closed and every property required.
func ensureOpenAICompliance(schema map[string]any) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]any); ok {
			var requiredFields []string
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureOpenAICompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]any); ok {
		ensureOpenAICompliance(additionalProps)
	}
}

// decodeModelJSON unmarshals JSON from a model response. It tolerates surrounding whitespace
// and text wrapped around a single top-level object.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}

	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
