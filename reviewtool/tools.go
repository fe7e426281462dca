// Package reviewtool exposes the wallet and reviewer surface of a spec.Runtime
// as llmtools-go tools.
package reviewtool

import (
	"context"
	"errors"

	"github.com/flexigpt/llmtools-go"
	llmtoolsgoSpec "github.com/flexigpt/llmtools-go/spec"

	"github.com/flexigpt/skillchain-go/spec"
)

// Register registers the wallet and reviewer tools into an existing llmtools-go
// Registry. All tools are bound to rt.
func Register(r *llmtools.Registry, rt spec.Runtime) error {
	if r == nil {
		return errors.New("nil registry")
	}
	if rt == nil {
		return errors.New("nil runtime")
	}

	// "wallet.state" -> typed -> text output (JSON).
	if err := llmtools.RegisterTypedAsTextTool[spec.WalletStateArgs, spec.WalletStateOut](
		r,
		spec.WalletStateTool(),
		func(ctx context.Context, _ spec.WalletStateArgs) (spec.WalletStateOut, error) {
			if err := ctx.Err(); err != nil {
				return spec.WalletStateOut{}, err
			}
			return stateOut(rt.State()), nil
		},
	); err != nil {
		return err
	}

	// "wallet.connect" may prompt the holder.
	if err := llmtools.RegisterTypedAsTextTool[spec.WalletConnectArgs, spec.WalletStateOut](
		r,
		spec.WalletConnectTool(),
		func(ctx context.Context, _ spec.WalletConnectArgs) (spec.WalletStateOut, error) {
			st, err := rt.Connect(ctx)
			if err != nil {
				return spec.WalletStateOut{}, err
			}
			return stateOut(st), nil
		},
	); err != nil {
		return err
	}

	if err := llmtools.RegisterTypedAsTextTool[spec.WalletDisconnectArgs, spec.WalletStateOut](
		r,
		spec.WalletDisconnectTool(),
		func(ctx context.Context, _ spec.WalletDisconnectArgs) (spec.WalletStateOut, error) {
			return stateOut(rt.Disconnect(ctx)), nil
		},
	); err != nil {
		return err
	}

	if err := llmtools.RegisterTypedAsTextTool[spec.ReviewerCheckArgs, spec.Verification](
		r,
		spec.ReviewerCheckTool(),
		func(ctx context.Context, args spec.ReviewerCheckArgs) (spec.Verification, error) {
			return rt.CheckReviewer(ctx, args.Skills)
		},
	); err != nil {
		return err
	}

	return nil
}

func Tools() []llmtoolsgoSpec.Tool {
	return []llmtoolsgoSpec.Tool{
		spec.WalletStateTool(),
		spec.WalletConnectTool(),
		spec.WalletDisconnectTool(),
		spec.ReviewerCheckTool(),
	}
}

func stateOut(st spec.ConnectionState) spec.WalletStateOut {
	return spec.WalletStateOut{State: st, Status: st.Status()}
}
