package spec

import llmtoolsgoSpec "github.com/flexigpt/llmtools-go/spec"

const FuncIDReviewerCheck llmtoolsgoSpec.FuncID = "github.com/flexigpt/skillchain-go/reviewer.check"

func ReviewerCheckTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c4a10-7e21-7c3a-9f5e-2b61d0c4a804",
		Slug:          "reviewer.check",
		Version:       "v1.0.0",
		DisplayName:   "Reviewer Check",
		Description:   "check whether the connected holder may review a project requiring the given skills",
		Tags:          []string{"reviewer", "wallet"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{
	"skills":{
		"type":"array",
		"minItems":1,
		"items":{"type":"string","description":"skill tag required by the project, e.g. React"}
	}
},
"required":["skills"],
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: FuncIDReviewerCheck},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}
