package main

import (
	"flag"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/internal/rpc"
)

// ── status / nonce / events ─────────────────────────────────────────────

func cmdStatus(e *env) {
	var info rpc.LedgerInfoResult
	if err := e.client.Call("ledger_getInfo", nil, &info); err != nil {
		fatal("ledger_getInfo: %v", err)
	}
	fmt.Printf("Network:        %s\n", info.Network)
	fmt.Printf("Registry:       %s\n", info.RegistryRef)
	fmt.Printf("Sales engine:   %s\n", info.EngineAccount)
	fmt.Printf("Series:         %d\n", info.Series)
	fmt.Printf("Sale configs:   %d\n", info.SaleConfigs)
	fmt.Printf("Payment tokens: %d\n", info.PaymentTokens)
	fmt.Printf("Events:         %d\n", info.Events)
	fmt.Printf("Native supply:  %d\n", info.NativeSupply)
	fmt.Printf("Engine balance: %d\n", info.EngineNative)
	fmt.Printf("Time:           %d\n", info.Time)
}

func cmdNonce(e *env, args []string) {
	addr := parseAddress(positional(args, 0, "nonce <address>"), "address")
	var res rpc.NonceResult
	if err := e.client.Call("account_getNonce", rpc.AccountParam{Account: addr}, &res); err != nil {
		fatal("account_getNonce: %v", err)
	}
	fmt.Printf("%s nonce %d\n", res.Account, res.Nonce)
}

func cmdEvents(e *env, args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	from := fs.Uint64("from", 0, "First sequence number")
	limit := fs.Int("limit", 100, "Max events")
	kind := fs.String("kind", "", "Only events of this kind")
	fs.Parse(args)

	e.call("events_list", rpc.EventsParam{From: *from, Limit: *limit, Kind: *kind})
}

// ── series ──────────────────────────────────────────────────────────────

func cmdSeries(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: nfb-cli series <set|freeze|get|list>")
	}
	switch args[0] {
	case "set":
		fs := flag.NewFlagSet("series set", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		name := fs.String("name", "", "Series name")
		desc := fs.String("description", "", "Series description")
		fs.Parse(args[1:])
		e.callSigned(sf, "series_set", rpc.SeriesSetParam{Series: *series, Name: *name, Description: *desc})
	case "freeze":
		fs := flag.NewFlagSet("series freeze", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		fs.Parse(args[1:])
		e.callSigned(sf, "series_freeze", rpc.SeriesParam{Series: *series})
	case "get":
		id := parseUint(positional(args, 1, "series get <series>"), "series")
		e.call("series_get", rpc.SeriesParam{Series: id})
	case "list":
		e.call("series_list", nil)
	default:
		fatal("unknown series command: %s", args[0])
	}
}

// ── edition ─────────────────────────────────────────────────────────────

func cmdEdition(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: nfb-cli edition <set|resolver|get|list>")
	}
	switch args[0] {
	case "set":
		fs := flag.NewFlagSet("edition set", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		from := fs.Uint64("from", 0, "Available from (unix seconds)")
		until := fs.Uint64("until", 0, "Available until (unix seconds)")
		name := fs.String("name", "", "Edition name")
		fs.Parse(args[1:])
		e.callSigned(sf, "edition_set", rpc.EditionSetParam{
			Series:         *series,
			Edition:        *edition,
			AvailableFrom:  *from,
			AvailableUntil: *until,
			Name:           *name,
		})
	case "resolver":
		fs := flag.NewFlagSet("edition resolver", flag.ExitOnError)
		sf := addSignerFlags(fs)
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		resolver := fs.String("resolver", "", "Resolver reference")
		fs.Parse(args[1:])
		e.callSigned(sf, "edition_setResolver", rpc.EditionResolverParam{
			Series:   *series,
			Edition:  *edition,
			Resolver: parseAddress(*resolver, "resolver"),
		})
	case "get":
		const u = "edition get <series> <edition>"
		series := parseUint(positional(args, 1, u), "series")
		edition := parseUint(positional(args, 2, u), "edition")
		e.call("edition_get", rpc.EditionParam{Series: series, Edition: edition})
	case "list":
		series := parseUint(positional(args, 1, "edition list <series>"), "series")
		e.call("edition_list", rpc.SeriesParam{Series: series})
	default:
		fatal("unknown edition command: %s", args[0])
	}
}

// ── nfb ─────────────────────────────────────────────────────────────────

func cmdNFB(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: nfb-cli nfb <mint|burn|transfer|approve|approve-all|owner|balance|tokens|uri|decode>")
	}
	switch args[0] {
	case "mint":
		fs := flag.NewFlagSet("nfb mint", flag.ExitOnError)
		sf := addSignerFlags(fs)
		to := fs.String("to", "", "Recipient address")
		series := fs.Uint64("series", 0, "Series ID")
		edition := fs.Uint64("edition", 0, "Edition ID")
		count := fs.Uint64("count", 1, "Number of tokens")
		fs.Parse(args[1:])
		e.callSigned(sf, "nfb_mint", rpc.MintParam{
			Recipient: parseAddress(*to, "recipient"),
			Count:     *count,
			Series:    *series,
			Edition:   *edition,
		})
	case "burn":
		fs := flag.NewFlagSet("nfb burn", flag.ExitOnError)
		sf := addSignerFlags(fs)
		fs.Parse(args[1:])
		id := parseUint(positional(fs.Args(), 0, "nfb burn --key <k> <id>"), "token id")
		e.callSigned(sf, "nfb_burn", rpc.TokenIDParam{ID: id})
	case "transfer":
		fs := flag.NewFlagSet("nfb transfer", flag.ExitOnError)
		sf := addSignerFlags(fs)
		from := fs.String("from", "", "Current owner (default: signer)")
		to := fs.String("to", "", "Recipient address")
		id := fs.Uint64("id", 0, "Token ID")
		fs.Parse(args[1:])
		e.callSigned(sf, "nfb_transfer", rpc.TransferParam{
			From: optionalAddress(*from, "owner"),
			To:   parseAddress(*to, "recipient"),
			ID:   *id,
		})
	case "approve":
		fs := flag.NewFlagSet("nfb approve", flag.ExitOnError)
		sf := addSignerFlags(fs)
		to := fs.String("to", "", "Approved address (empty clears)")
		id := fs.Uint64("id", 0, "Token ID")
		fs.Parse(args[1:])
		e.callSigned(sf, "nfb_approve", rpc.ApproveParam{To: optionalAddress(*to, "approved"), ID: *id})
	case "approve-all":
		fs := flag.NewFlagSet("nfb approve-all", flag.ExitOnError)
		sf := addSignerFlags(fs)
		operator := fs.String("operator", "", "Operator address")
		approved := fs.Bool("approved", true, "Grant (true) or revoke (false)")
		fs.Parse(args[1:])
		e.callSigned(sf, "nfb_setApprovalForAll", rpc.ApprovalForAllParam{
			Operator: parseAddress(*operator, "operator"),
			Approved: *approved,
		})
	case "owner":
		id := parseUint(positional(args, 1, "nfb owner <id>"), "token id")
		e.call("nfb_ownerOf", rpc.TokenIDParam{ID: id})
	case "balance":
		owner := parseAddress(positional(args, 1, "nfb balance <address>"), "owner")
		e.call("nfb_balanceOf", rpc.OwnerParam{Owner: owner})
	case "tokens":
		owner := parseAddress(positional(args, 1, "nfb tokens <address>"), "owner")
		e.call("nfb_tokensOf", rpc.OwnerParam{Owner: owner})
	case "uri":
		id := parseUint(positional(args, 1, "nfb uri <id>"), "token id")
		var res rpc.TokenURIResult
		if err := e.client.Call("nfb_tokenURI", rpc.TokenIDParam{ID: id}, &res); err != nil {
			fatal("nfb_tokenURI: %v", err)
		}
		fmt.Println(res.URI)
	case "decode":
		id := parseUint(positional(args, 1, "nfb decode <id>"), "token id")
		var res rpc.DecodeResult
		if err := e.client.Call("nfb_decode", rpc.TokenIDParam{ID: id}, &res); err != nil {
			fatal("nfb_decode: %v", err)
		}
		fmt.Printf("Token:    %d (%s)\n", res.ID, res.Label)
		fmt.Printf("Series:   %d\n", res.Series)
		fmt.Printf("Edition:  %d\n", res.Edition)
		fmt.Printf("Sequence: %d\n", res.Sequence)
	default:
		fatal("unknown nfb command: %s", args[0])
	}
}
