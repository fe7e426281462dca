package spec

import llmtoolsgoSpec "github.com/flexigpt/llmtools-go/spec"

const FuncIDWalletConnect llmtoolsgoSpec.FuncID = "github.com/flexigpt/skillchain-go/wallet.connect"

func WalletConnectTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c4a10-7e21-7c3a-9f5e-2b61d0c4a802",
		Slug:          "wallet.connect",
		Version:       "v1.0.0",
		DisplayName:   "Wallet Connect",
		Description:   "Request account access from the wallet provider and connect.",
		Tags:          []string{"wallet"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{},
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: FuncIDWalletConnect},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}
