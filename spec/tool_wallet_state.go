package spec

import llmtoolsgoSpec "github.com/flexigpt/llmtools-go/spec"

const FuncIDWalletState llmtoolsgoSpec.FuncID = "github.com/flexigpt/skillchain-go/wallet.state"

func WalletStateTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c4a10-7e21-7c3a-9f5e-2b61d0c4a801",
		Slug:          "wallet.state",
		Version:       "v1.0.0",
		DisplayName:   "Wallet State",
		Description:   "Return the current wallet connection state.",
		Tags:          []string{"wallet"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{},
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: FuncIDWalletState},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}
