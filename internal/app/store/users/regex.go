package userstore

import "regexp"

func regexQuote(s string) string { return regexp.QuoteMeta(s) }
