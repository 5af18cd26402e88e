package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCrawlerErrorMessage(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewFetch("suumo", "fetch page 3", cause)

	assert.Equal(t, "[fetch] suumo: fetch page 3 - connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsRetryable())

	noCause := NewRateLimit("suumo", 5*time.Minute)
	assert.Equal(t, "[rate_limit] suumo: rate limited for 5m0s", noCause.Error())
	assert.False(t, noCause.IsRetryable())
}

func TestIsType(t *testing.T) {
	inner := NewRateLimit("suumo", time.Second)
	outer := NewFetch("suumo", "index page", inner)
	wrapped := fmt.Errorf("run aborted: %w", outer)

	assert.True(t, IsType(wrapped, ErrorTypeFetch))
	assert.True(t, IsType(wrapped, ErrorTypeRateLimit))
	assert.False(t, IsType(wrapped, ErrorTypePersistence))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeFetch))
	assert.False(t, IsType(nil, ErrorTypeFetch))
}

func TestMissingFieldError(t *testing.T) {
	var err error = &MissingFieldError{Field: "name", Selector: ".title a"}
	wrapped := fmt.Errorf("listing 2: %w", err)

	var mfe *MissingFieldError
	assert.True(t, stderrors.As(wrapped, &mfe))
	assert.Equal(t, "name", mfe.Field)
	assert.Contains(t, err.Error(), ".title a")
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("page 2: %w", NewParsing("suumo", "no listings", nil))
	ce, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeParsing, ce.Type)

	_, ok = As(stderrors.New("plain"))
	assert.False(t, ok)
}
