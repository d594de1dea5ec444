// Package dsl implements the rule language: a tokenizer, a recursive-descent
// parser producing [rule.Rule] values, and a serializer that is the parser's
// round-trip partner.
//
// For every rule AST r the parser can produce, Parse(Format(r)) is
// structurally equal to r. The rendered text is canonical but not guaranteed
// byte-identical to the original input.
package dsl
