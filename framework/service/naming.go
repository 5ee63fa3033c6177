package service

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NameResolver maps a service name to the class identifier to construct.
type NameResolver interface {
	Resolve(name string) string
}

// NameResolverFunc adapts a func to NameResolver.
type NameResolverFunc func(name string) string

func (f NameResolverFunc) Resolve(name string) string { return f(name) }

// UpperCamelCase treats dashes, underscores and spaces as word breaks and
// upper-cases the first letter of every word: "my_cool-service" becomes
// "MyCoolService". Letters after the first are kept as written.
var UpperCamelCase NameResolver = NameResolverFunc(upperCamelCase)

// Identity uses the service name unchanged.
var Identity NameResolver = NameResolverFunc(func(name string) string { return name })

var wordBreaks = strings.NewReplacer("-", " ", "_", " ")

func upperCamelCase(name string) string {
	// a Caser keeps state between calls, so each call gets its own
	title := cases.Title(language.Und, cases.NoLower)

	var b strings.Builder
	for _, word := range strings.Fields(wordBreaks.Replace(name)) {
		b.WriteString(title.String(word))
	}
	return b.String()
}
