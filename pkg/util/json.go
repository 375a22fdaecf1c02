package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PrintPrettyJSON prints v as indented JSON on stdout.
// HTML characters are left unescaped so share URLs print as-is.
func PrintPrettyJSON(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}

// PrintPrettyJSONSlice prints items as a JSON array, printing [] for an empty or nil slice.
func PrintPrettyJSONSlice[T any](items []T) error {
	if len(items) == 0 {
		fmt.Println("[]")
		return nil
	}
	return PrintPrettyJSON(items)
}
