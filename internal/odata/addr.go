package odata

import "regexp"

// collectionAddrRe matches one URL path element addressing a collection,
// optionally with an entity key: "tickers.spy" or "tickers.spy(42)".
var collectionAddrRe = regexp.MustCompile(`^(?P<name>[A-Za-z0-9._-]+)(\((?P<key>[^)]+)\))?$`)

// CollectionAddr is a decoded collection path element. Key is empty when
// the element addresses the whole collection; the grammar cannot produce
// an empty key otherwise.
type CollectionAddr struct {
	Name string
	Key  string
}

// DecodeCollectionAddr parses one URL path element into a collection
// address. The second return is false when the element does not match the
// address grammar.
func DecodeCollectionAddr(pathElement string) (*CollectionAddr, bool) {
	m := collectionAddrRe.FindStringSubmatch(pathElement)
	if m == nil {
		return nil, false
	}
	return &CollectionAddr{Name: m[1], Key: m[3]}, true
}

func (a *CollectionAddr) String() string {
	if a.Key == "" {
		return a.Name
	}
	return a.Name + "(" + a.Key + ")"
}
