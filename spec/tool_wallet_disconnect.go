package spec

import llmtoolsgoSpec "github.com/flexigpt/llmtools-go/spec"

const FuncIDWalletDisconnect llmtoolsgoSpec.FuncID = "github.com/flexigpt/skillchain-go/wallet.disconnect"

func WalletDisconnectTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c4a10-7e21-7c3a-9f5e-2b61d0c4a803",
		Slug:          "wallet.disconnect",
		Version:       "v1.0.0",
		DisplayName:   "Wallet Disconnect",
		Description:   "Disconnect the wallet and forget the last known address.",
		Tags:          []string{"wallet"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{},
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: FuncIDWalletDisconnect},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}
