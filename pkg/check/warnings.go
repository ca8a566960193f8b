package check

import "strings"

// WarningSignature is one entry of the screening catalogue: a substring
// of clang/gcc diagnostic output whose presence marks a candidate as
// ill-formed or undefined, together with a coarse category used in logs.
type WarningSignature struct {
	Substring string
	Category  string
}

// WarningCatalogue is the hand-maintained list of diagnostic substrings
// that reject a candidate during warning screening. Order is
// significant only for logging; matching is substring containment over
// the combined compiler output.
var WarningCatalogue = []WarningSignature{
	{"conversions than data arguments", "format"},
	{"too few arguments for format", "format"},

	{"uninitialized", "uninitialized"},

	{"incompatible redeclaration", "declaration"},
	{"specifies type", "declaration"},
	{"type specifier missing", "declaration"},
	{"Wimplicit-int", "declaration"},
	{"useless type name in empty declaration", "declaration"},
	{"no semicolon at end", "declaration"},
	{"type defaults to", "declaration"},
	{"declaration does not declare anything", "declaration"},
	{"return type defaults", "declaration"},
	{"invalid in C99", "declaration"},

	{"ordered comparison between pointer", "pointer"},
	{"incompatible pointer to", "pointer"},
	{"incompatible integer to", "pointer"},
	{"comparison of distinct pointer types", "pointer"},
	{"without a cast", "pointer"},
	{"cast from pointer to integer", "pointer"},
	{"incompatible pointer", "pointer"},
	{"ordered comparison of pointer with integer", "pointer"},
	{"pointer from integer", "pointer"},
	{"incompatible implicit", "pointer"},
	{"comparison between pointer and integer", "pointer"},

	{"eliding middle term", "expression"},
	{"division by zero", "arithmetic"},

	{"end of non-void function", "return"},
	{"should return a value", "return"},
	{"control reaches end", "return"},
	{"no return statement in function returning non-void", "return"},
	{"return type of ‘main’ is not ‘int’", "return"},

	{"expects type", "type"},

	{"excess elements in struct initializer", "initializer"},
	{"past the end of the array", "array"},
}

// matchWarnings returns every catalogue entry found in either compiler
// output.
func matchWarnings(clangOut, gccOut string) []WarningSignature {
	var found []WarningSignature
	for _, w := range WarningCatalogue {
		if strings.Contains(clangOut, w.Substring) || strings.Contains(gccOut, w.Substring) {
			found = append(found, w)
		}
	}
	return found
}
