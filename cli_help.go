package main

import (
	"fmt"
	"strings"
)

const usageText = `Usage: raktchain [flags] <command> [args]

Commands:
  serve             Run the HTTP API until interrupted
  add <json|->      Mine a JSON object or array into a new block
  chain             Print the whole chain as JSON
  verify [file]     Verify the ledger, or a chain exported to a file
  summary           Show record count, difficulty and the newest record
  export <file>     Write the chain to a file
  reset             Discard all records (asks first unless --yes)
  token             Print the API token of a running serve
  version           Print version
  help <command>    Show detailed help for a command
`

type helpEntry struct {
	usage        []string
	description  []string
	exampleInput []string
	notes        []string
}

func normalizeHelpTopic(topic string) string {
	switch strings.ToLower(topic) {
	case "serve", "api":
		return "serve"
	case "add", "record":
		return "add"
	case "chain", "dump":
		return "chain"
	case "verify", "check":
		return "verify"
	case "summary", "status":
		return "summary"
	case "export":
		return "export"
	case "reset":
		return "reset"
	case "token", "cookie":
		return "token"
	case "version":
		return "version"
	default:
		return ""
	}
}

var helpCommandDetails = map[string]helpEntry{
	"serve": {
		usage:        []string{"serve"},
		description:  []string{"Runs the JSON API on --api until Ctrl+C.", "Write endpoints need the token stored in <data>/api.cookie."},
		exampleInput: []string{"$ raktchain --api 127.0.0.1:8332 serve"},
		notes:        []string{"POST /api/blockchain/record accepts an Idempotency-Key header"},
	},
	"add": {
		usage:        []string{"add <json>", "add -"},
		description:  []string{"Mines the payload into a new block and saves the ledger.", "The payload must be a JSON object or array."},
		exampleInput: []string{`$ raktchain add '{"donor":"Alice","recipient":"Bob","units":2,"verifiedBy":"Nurse Joy"}'`, "$ cat record.json | raktchain add -"},
		notes:        []string{"mining time grows 16x per difficulty step"},
	},
	"chain": {
		usage:        []string{"chain"},
		description:  []string{"Prints every block, genesis first, in the on-disk format."},
		exampleInput: []string{"$ raktchain chain | jq '.[-1]'"},
	},
	"verify": {
		usage:        []string{"verify", "verify <file>"},
		description:  []string{"Recomputes every hash and link and reports the first bad block.", "With a file, checks that chain instead; the ledger is not touched."},
		exampleInput: []string{"$ raktchain verify", "$ raktchain verify backup.json"},
		notes:        []string{"exits with status 1 when the chain is invalid"},
	},
	"summary": {
		usage:        []string{"summary"},
		description:  []string{"Shows how many records exist, the difficulty and the newest record."},
		exampleInput: []string{"$ raktchain summary"},
	},
	"export": {
		usage:        []string{"export <file>"},
		description:  []string{"Writes the chain to a file in the on-disk format."},
		exampleInput: []string{"$ raktchain export backups/ledger.json"},
	},
	"reset": {
		usage:        []string{"reset", "--yes reset"},
		description:  []string{"Replaces the ledger with a chain holding only the genesis block."},
		exampleInput: []string{"$ raktchain --yes reset"},
		notes:        []string{"this cannot be undone; export first if you need the records"},
	},
	"token": {
		usage:        []string{"token"},
		description:  []string{"Prints the token serve wrote to <data>/api.cookie."},
		exampleInput: []string{`$ curl -H "Authorization: Bearer $(raktchain token)" ...`},
		notes:        []string{"the token changes every time serve starts"},
	},
	"version": {
		usage:       []string{"version"},
		description: []string{"Prints the version."},
	},
}

func (c *CLI) cmdHelp(args []string) {
	if len(args) == 0 {
		fmt.Fprint(c.out, usageText)
		return
	}

	topic := normalizeHelpTopic(args[0])
	entry, ok := helpCommandDetails[topic]
	if !ok {
		fmt.Fprintf(c.out, "Unknown command: %s\n", args[0])
		fmt.Fprintln(c.out, "Use 'help' to list available commands.")
		return
	}

	fmt.Fprintf(c.out, "\n%s\n", c.sectionHead("Help: "+topic))
	fmt.Fprintln(c.out, "  Usage:")
	for _, line := range entry.usage {
		fmt.Fprintf(c.out, "    raktchain %s\n", line)
	}
	fmt.Fprintln(c.out, "\n  What it does:")
	for _, line := range entry.description {
		fmt.Fprintf(c.out, "    %s\n", line)
	}
	if len(entry.exampleInput) > 0 {
		fmt.Fprintln(c.out, "\n  Example:")
		for _, line := range entry.exampleInput {
			fmt.Fprintf(c.out, "    %s\n", line)
		}
	}
	if len(entry.notes) > 0 {
		fmt.Fprintln(c.out, "\n  Notes:")
		for _, line := range entry.notes {
			fmt.Fprintf(c.out, "    - %s\n", line)
		}
	}
}
