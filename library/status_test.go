package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	for _, s := range []BookStatus{BookAvailable, BookBorrowed, BookLost} {
		assert.Equal(t, s, ParseBookStatus(s.String()))
	}
	for _, s := range []TransactionStatus{TxActive, TxReturned, TxLost, TxPaid} {
		assert.Equal(t, s, ParseTransactionStatus(s.String()))
	}
	for _, r := range []Role{RoleLibrarian, RoleAdmin, RoleFinance} {
		assert.Equal(t, r, ParseRole(r.String()))
	}
}

func TestStatusFallbacks(t *testing.T) {
	assert.Equal(t, BookAvailable, ParseBookStatus("on fire"))
	assert.Equal(t, BookLost, ParseBookStatus("  LOST "))
	assert.Equal(t, TxActive, ParseTransactionStatus(""))
	assert.Equal(t, RoleLibrarian, ParseRole("superuser"))
}

func TestTerminal(t *testing.T) {
	assert.True(t, TxReturned.Terminal())
	assert.True(t, TxPaid.Terminal())
	assert.False(t, TxActive.Terminal())
	assert.False(t, TxLost.Terminal())
}
