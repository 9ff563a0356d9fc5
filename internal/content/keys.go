package content

import "fmt"

// CanonicalKey is where a document's approved text lives.
func CanonicalKey(documentID string) string {
	return fmt.Sprintf("documents:%s:content", documentID)
}

// ProposedKey is where the live, still-under-review buffer lives.
func ProposedKey(documentID string) string {
	return fmt.Sprintf("documents:%s:proposed", documentID)
}
