package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// ArticleSchemaName names the structured output for providers that require one.
const ArticleSchemaName = "generated_post"

// ArticleSchema is the only shape a generation response may take.
const ArticleSchema = `{
  "type": "object",
  "properties": {
    "post": {
      "type": "object",
      "properties": {
        "title": {"type": "string"},
        "markdownContent": {"type": "string", "description": "markdown content of the post"}
      },
      "required": ["title", "markdownContent"],
      "additionalProperties": false
    }
  },
  "required": ["post"],
  "additionalProperties": false
}`

var articleSchema = mustCompileSchema(ArticleSchema)

func mustCompileSchema(schema string) *jsonschema.Schema {
	compiled, err := jsonschema.NewCompiler().Compile([]byte(schema))
	if err != nil {
		panic(fmt.Sprintf("generator: invalid article schema: %v", err))
	}
	return compiled
}

type generatedArticle struct {
	Post struct {
		Title           string `json:"title"`
		MarkdownContent string `json:"markdownContent"`
	} `json:"post"`
}

// decodeArticle validates raw model output against ArticleSchema and decodes it.
// Every failure is a *MalformedGenerationError.
func decodeArticle(raw string) (*generatedArticle, error) {
	var document interface{}
	if err := json.Unmarshal([]byte(raw), &document); err != nil {
		return nil, &MalformedGenerationError{Reason: "response is not valid JSON", Raw: raw, Err: err}
	}

	result := articleSchema.Validate(document)
	if !result.IsValid() {
		var messages []string
		for field, evalErr := range result.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		sort.Strings(messages)
		return nil, &MalformedGenerationError{
			Reason: "response does not match schema: " + strings.Join(messages, "; "),
			Raw:    raw,
		}
	}

	var article generatedArticle
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&article); err != nil {
		return nil, &MalformedGenerationError{Reason: "response does not decode into an article", Raw: raw, Err: err}
	}

	return &article, nil
}

// schemaDocument returns ArticleSchema as a generic JSON value for SDKs that
// take the schema as an object rather than text.
func schemaDocument() map[string]interface{} {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(ArticleSchema), &doc); err != nil {
		panic(fmt.Sprintf("generator: invalid article schema: %v", err))
	}
	return doc
}
