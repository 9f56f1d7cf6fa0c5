package record

import (
	"reflect"
	"sort"
	"strings"
)

// TypeName returns the runtime type name of v, or "" for nil.
func TypeName(v interface{}) string {
	if v == nil {
		return ""
	}
	return reflect.TypeOf(v).String()
}

// CompareByType orders values by runtime type name only. It groups mixed
// record collections and says nothing about the records' contents.
func CompareByType(a, b interface{}) int {
	return strings.Compare(TypeName(a), TypeName(b))
}

// SortByType stable-sorts items by runtime type name, keeping the original
// order within each type.
func SortByType[T any](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return CompareByType(items[i], items[j]) < 0
	})
}
