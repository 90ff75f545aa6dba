package forms_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/hydrolog/internal/adapters/forms"
	"github.com/PabloGalante/hydrolog/internal/domain"
)

func testSubmission() *domain.Submission {
	return &domain.Submission{
		UserID:       "1001",
		Username:     "Pat",
		AccountToken: "ABCD1234EFGH5678",
		WaterML:      473.18,
		SugarML:      100,
		FoodsG:       56.7,
		CaffeineRaw:  "40",
		Notes:        "feeling fine",
	}
}

func TestSubmitSendsContractFields(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm
	}))
	defer srv.Close()

	client := forms.NewClient(srv.URL)
	require.NoError(t, client.Submit(context.Background(), testSubmission()))

	// The entry.* keys are the receiving form's contract.
	assert.Equal(t, "1001", got.Get("entry.111111"))
	assert.Equal(t, "Pat", got.Get("entry.111112"))
	assert.Equal(t, "ABCD1234EFGH5678", got.Get("entry.777777"))
	assert.Equal(t, "473.18", got.Get("entry.222222"))
	assert.Equal(t, "100", got.Get("entry.333333"))
	assert.Equal(t, "40", got.Get("entry.444444"))
	assert.Equal(t, "56.7", got.Get("entry.555555"))
	assert.Equal(t, "feeling fine", got.Get("entry.666666"))
}

func TestSubmitErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := forms.NewClient(srv.URL)
	err := client.Submit(context.Background(), testSubmission())
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)
}

func TestSubmitConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := forms.NewClient(srv.URL)
	err := client.Submit(context.Background(), testSubmission())
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)
}
