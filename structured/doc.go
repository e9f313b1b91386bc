// Package structured turns generic decoded bodies (maps, slices and scalars
// as produced by encoding/json) into a tagged Value tree with normalized keys.
//
// Mapping keys are normalized by replacing hyphens with underscores and
// lower-casing, so a body like
//
//	{"Error-Code": 5, "Nested-Info": {"Sub-Key": 1}}
//
// is reachable as
//
//	v := structured.Decode(body, "Result")
//	code, _ := v.Path("error_code").Int()          // 5
//	sub, _ := v.Path("nested_info", "sub_key").Int() // 1
//
// Lookups normalize the requested key as well, so Field("Error-Code") and
// Field("error_code") are equivalent.
package structured
