package kvstore

import (
	"regexp"
	"sync"
)

var regexCache sync.Map // pattern string -> *regexp.Regexp

func regexMatch(pattern, key string) bool {
	if cached, ok := regexCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re != nil && re.MatchString(key)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		regexCache.Store(pattern, (*regexp.Regexp)(nil))
		return false
	}
	regexCache.Store(pattern, re)
	return re.MatchString(key)
}
