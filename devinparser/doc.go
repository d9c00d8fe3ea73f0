// Package devinparser implements the lexer and parser for DevIns, the
// markdown-flavoured agent instruction language.
//
// A DevIns document is free text interleaved with a few constructs:
//
//	---                      front matter (YAML key/value pairs)
//	name: review
//	---
//	@reviewer                agent reference
//	/file: src/main.go       command with raw arguments
//	$lang = "go"             variable assignment ($lang alone is a reference)
//	#if ($lang == "go")      conditional; #when/#case/#default/#end selects
//	  ...
//	#endif
//	```go                    fenced code, copied verbatim
//	```
//	// comment line
//
// The package has three layers:
//
//   - Lexer: converts text into a lossless token stream. Concatenating the
//     token values reproduces the input exactly; the lexer never fails.
//   - Parser: a recursive-descent walk over the tokens that builds a FILE
//     node. It never fails either: problems are collected as ParseErrors
//     next to a best-effort tree.
//   - Lint: Validate runs document rules (unclosed blocks, malformed
//     conditions, duplicate keys) over a parsed tree.
//
// Usage:
//
//	res := devinparser.Parse(src)
//	for _, cmd := range res.AST.Commands() {
//	    fmt.Println(cmd.Name, cmd.Args)
//	}
//	if err := res.Err(); err != nil {
//	    log.Print(err)
//	}
//
// ParseRule parses a fragment against one production, which editors use to
// re-parse only the block under the cursor.
package devinparser
