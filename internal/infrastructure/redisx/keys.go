package redisx

import "fmt"

const (
	// Session cart: cart:{session_id} -> JSON encoded cart
	KeyCart = "cart:%s"
)

func CartKey(sessionID string) string {
	return fmt.Sprintf(KeyCart, sessionID)
}
