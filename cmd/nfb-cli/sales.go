package main

import (
	"flag"

	"github.com/Klingon-tech/nfb-ledger/internal/rpc"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// ── sale ────────────────────────────────────────────────────────────────

func cmdSale(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: nfb-cli sale <set|payment-token|enforce|handler|get|list|quote|buy|withdraw-native|withdraw-tokens>")
	}
	switch args[0] {
	case "set":
		fs := flag.NewFlagSet("sale set", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		supply := fs.Uint64("supply", 0, "Units for sale")
		price := fs.Uint64("price", 0, "Native price per unit")
		perTx := fs.Uint64("max-per-tx", 0, "Max units per purchase")
		nfbRef := fs.String("nfb", "", "Minter reference (default: this ledger's registry)")
		fs.Parse(args[1:])
		e.callSigned(sf, "sale_set", rpc.SaleSetParam{
			Series:           *series,
			Edition:          *edition,
			NFBRef:           optionalAddress(*nfbRef, "nfb reference"),
			MaxSupplyForSale: *supply,
			NativePrice:      *price,
			MaxUnitsPerTx:    *perTx,
		})
	case "payment-token":
		fs := flag.NewFlagSet("sale payment-token", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		token := fs.String("token", "", "Payment token reference")
		price := fs.Uint64("price", 0, "Token price per unit")
		surcharge := fs.Uint64("surcharge", 0, "Native surcharge per unit")
		fs.Parse(args[1:])
		e.callSigned(sf, "sale_setPaymentToken", rpc.SalePaymentTokenParam{
			Series:          *series,
			Edition:         *edition,
			Token:           parseAddress(*token, "token"),
			TokenPrice:      *price,
			NativeSurcharge: *surcharge,
		})
	case "enforce":
		fs := flag.NewFlagSet("sale enforce", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		fs.Parse(args[1:])
		e.callSigned(sf, "sale_toggleEnforceTokenPayment", rpc.EditionParam{Series: *series, Edition: *edition})
	case "handler":
		fs := flag.NewFlagSet("sale handler", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		handler := fs.String("handler", "", "Handler reference (empty clears)")
		fs.Parse(args[1:])
		e.callSigned(sf, "sale_setCustomHandler", rpc.SaleHandlerParam{
			Series:  *series,
			Edition: *edition,
			Handler: optionalAddress(*handler, "handler"),
		})
	case "get":
		const u = "sale get <series> <edition>"
		series := parseUint(positional(args, 1, u), "series")
		edition := parseUint(positional(args, 2, u), "edition")
		e.call("sale_get", rpc.EditionParam{Series: series, Edition: edition})
	case "list":
		e.call("sale_list", nil)
	case "quote":
		fs := flag.NewFlagSet("sale quote", flag.ExitOnError)
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		quantity := fs.Uint64("quantity", 1, "Units")
		token := fs.String("token", "", "Payment token (empty for native)")
		fs.Parse(args[1:])
		e.call("sale_quote", rpc.QuoteParam{
			Series:       *series,
			Edition:      *edition,
			Quantity:     *quantity,
			PaymentToken: optionalAddress(*token, "token"),
		})
	case "buy":
		fs := flag.NewFlagSet("sale buy", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		quantity := fs.Uint64("quantity", 1, "Units")
		value := fs.Uint64("value", 0, "Native amount sent")
		to := fs.String("to", "", "Recipient address")
		token := fs.String("token", "", "Payment token (empty for native)")
		referral := fs.String("referral", "", "Referral code")
		fs.Parse(args[1:])
		e.callSigned(sf, "sale_purchase", rpc.PurchaseParam{
			Series:       *series,
			Edition:      *edition,
			Quantity:     *quantity,
			Recipient:    parseAddress(*to, "recipient"),
			PaymentToken: optionalAddress(*token, "token"),
			ReferralCode: *referral,
			Value:        *value,
		})
	case "withdraw-native":
		fs := flag.NewFlagSet("sale withdraw-native", flag.ExitOnError)
		sf := addSignerFlags(fs)
		fs.Parse(args[1:])
		e.callSigned(sf, "sale_withdrawNative", nil)
	case "withdraw-tokens":
		fs := flag.NewFlagSet("sale withdraw-tokens", flag.ExitOnError)
		sf := addSignerFlags(fs)
		token := fs.String("token", "", "Payment token reference")
		fs.Parse(args[1:])
		e.callSigned(sf, "sale_withdrawTokens", rpc.WithdrawTokensParam{Token: parseAddress(*token, "token")})
	default:
		fatal("unknown sale command: %s", args[0])
	}
}

// ── role ────────────────────────────────────────────────────────────────

func cmdRole(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: nfb-cli role <grant|revoke|list>")
	}
	switch args[0] {
	case "grant", "revoke":
		fs := flag.NewFlagSet("role "+args[0], flag.ExitOnError)
		sf := addSignerFlags(fs)
		role := fs.String("role", "", "admin, manager, minter or withdrawer")
		account := fs.String("account", "", "Account address")
		fs.Parse(args[1:])
		e.callSigned(sf, "role_"+args[0], rpc.RoleParam{Role: *role, Account: parseAddress(*account, "account")})
	case "list":
		arg := positional(args, 1, "role list <role|address>")
		if a, err := types.ParseAddress(arg); err == nil {
			e.call("role_list", rpc.RoleListParam{Account: a})
			return
		}
		e.call("role_list", rpc.RoleListParam{Role: arg})
	default:
		fatal("unknown role command: %s", args[0])
	}
}

// ── paytoken ────────────────────────────────────────────────────────────

func cmdPayToken(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: nfb-cli paytoken <issue|mint|approve|transfer|balance|list>")
	}
	switch args[0] {
	case "issue":
		fs := flag.NewFlagSet("paytoken issue", flag.ExitOnError)
		sf := addSignerFlags(fs)
		symbol := fs.String("symbol", "", "Token symbol")
		name := fs.String("name", "", "Token name")
		decimals := fs.Uint("decimals", 0, "Display decimals")
		fs.Parse(args[1:])
		if *decimals > 255 {
			fatal("--decimals must be at most 255")
		}
		e.callSigned(sf, "paytoken_issue", rpc.PayTokenIssueParam{Symbol: *symbol, Name: *name, Decimals: uint8(*decimals)})
	case "mint", "transfer":
		fs := flag.NewFlagSet("paytoken "+args[0], flag.ExitOnError)
		sf := addSignerFlags(fs)
		token := fs.String("token", "", "Token reference")
		to := fs.String("to", "", "Recipient address")
		amt := fs.Uint64("amount", 0, "Amount")
		fs.Parse(args[1:])
		e.callSigned(sf, "paytoken_"+args[0], rpc.PayTokenAmountParam{
			Token:  parseAddress(*token, "token"),
			To:     parseAddress(*to, "recipient"),
			Amount: *amt,
		})
	case "approve":
		fs := flag.NewFlagSet("paytoken approve", flag.ExitOnError)
		sf := addSignerFlags(fs)
		token := fs.String("token", "", "Token reference")
		spender := fs.String("spender", "", "Spender address")
		amt := fs.Uint64("amount", 0, "Allowance")
		fs.Parse(args[1:])
		e.callSigned(sf, "paytoken_approve", rpc.PayTokenApproveParam{
			Token:   parseAddress(*token, "token"),
			Spender: parseAddress(*spender, "spender"),
			Amount:  *amt,
		})
	case "balance":
		fs := flag.NewFlagSet("paytoken balance", flag.ExitOnError)
		token := fs.String("token", "", "Token reference")
		owner := fs.String("owner", "", "Owner address")
		fs.Parse(args[1:])
		e.call("paytoken_balance", rpc.PayTokenBalanceParam{
			Token: parseAddress(*token, "token"),
			Owner: parseAddress(*owner, "owner"),
		})
	case "list":
		e.call("paytoken_list", nil)
	default:
		fatal("unknown paytoken command: %s", args[0])
	}
}

// ── bank ────────────────────────────────────────────────────────────────

func cmdBank(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: nfb-cli bank <balance|transfer>")
	}
	switch args[0] {
	case "balance":
		a := parseAddress(positional(args, 1, "bank balance <address>"), "address")
		e.call("bank_balance", rpc.AccountParam{Account: a})
	case "transfer":
		fs := flag.NewFlagSet("bank transfer", flag.ExitOnError)
		sf := addSignerFlags(fs)
		to := fs.String("to", "", "Recipient address")
		amt := fs.Uint64("amount", 0, "Amount")
		fs.Parse(args[1:])
		e.callSigned(sf, "bank_transfer", rpc.BankTransferParam{To: parseAddress(*to, "recipient"), Amount: *amt})
	default:
		fatal("unknown bank command: %s", args[0])
	}
}
