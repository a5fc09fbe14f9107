package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditline/platform/internal/domain"
)

// --- RespondJSON Tests ---

func TestRespondJSON(t *testing.T) {
	t.Run("200 with body", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("204 with nil body", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondJSON(w, http.StatusNoContent, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

// --- RespondError Tests ---

func TestRespondError(t *testing.T) {
	t.Run("AppError maps to correct status", func(t *testing.T) {
		tests := []struct {
			err        *domain.AppError
			wantStatus int
			wantCode   string
		}{
			{domain.ErrNotFound("item", "123"), 404, "NOT_FOUND"},
			{domain.ErrValidation("bad input"), 400, "VALIDATION_ERROR"},
			{domain.ErrUnauthorized("no token"), 401, "UNAUTHORIZED"},
			{domain.ErrForbidden("not allowed"), 403, "FORBIDDEN"},
			{domain.ErrInsufficientCustomerBalance(), 400, "INSUFFICIENT_CUSTOMER_BALANCE"},
			{domain.ErrInsufficientPartnerBalance(), 400, "INSUFFICIENT_PARTNER_BALANCE"},
			{domain.ErrDuplicateSlip("TR-1"), 409, "DUPLICATE_SLIP"},
			{domain.ErrUpstreamFailure("provider down", nil), 502, "UPSTREAM_FAILURE"},
			{domain.ErrSlipUnverifiable(assert.AnError), 502, "SLIP_UNVERIFIABLE"},
			{domain.ErrInternal("oops", nil), 500, "INTERNAL_ERROR"},
		}

		for _, tt := range tests {
			t.Run(tt.wantCode, func(t *testing.T) {
				w := httptest.NewRecorder()
				RespondError(w, tt.err)
				assert.Equal(t, tt.wantStatus, w.Code)

				var body map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body["code"])
			})
		}
	})

	t.Run("generic error returns 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondError(w, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "INTERNAL_ERROR", body["code"])
		assert.Equal(t, "internal server error", body["message"])
	})
}

// --- DecodeJSON Tests ---

func TestDecodeJSON(t *testing.T) {
	t.Run("valid JSON body", func(t *testing.T) {
		body := bytes.NewBufferString(`{"item_id":"abc","target_ref":"player-1"}`)
		r := httptest.NewRequest(http.MethodPost, "/", body)
		var dst topupRequest
		require.NoError(t, DecodeJSON(r, &dst))
		assert.Equal(t, "abc", dst.ItemID)
		assert.Equal(t, "player-1", dst.TargetRef)
	})

	t.Run("invalid JSON returns error", func(t *testing.T) {
		body := bytes.NewBufferString(`{invalid`)
		r := httptest.NewRequest(http.MethodPost, "/", body)
		var dst map[string]interface{}
		err := DecodeJSON(r, &dst)
		require.Error(t, err)
	})
}

// --- RequestID Middleware Tests ---

func TestRequestID(t *testing.T) {
	t.Run("generates ID when none provided", func(t *testing.T) {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetRequestID(r.Context())
			assert.NotEmpty(t, id)
			w.WriteHeader(http.StatusOK)
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("uses provided X-Request-ID", func(t *testing.T) {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetRequestID(r.Context())
			assert.Equal(t, "my-custom-id", id)
			w.WriteHeader(http.StatusOK)
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "my-custom-id")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, "my-custom-id", w.Header().Get("X-Request-ID"))
	})
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	id := GetRequestID(context.Background())
	assert.Empty(t, id)
}

// --- readSlipImage Tests ---

func TestReadSlipImage_RawBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/payment/topup", bytes.NewBufferString("jpeg-bytes"))
	image, err := readSlipImage(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), image)
}

func TestReadSlipImage_JSONBase64(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0}
	body := fmt.Sprintf(`{"slipImage":%q}`, base64.StdEncoding.EncodeToString(image))
	r := httptest.NewRequest(http.MethodPost, "/payment/topup", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	got, err := readSlipImage(r)
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestReadSlipImage_JSONDataURI(t *testing.T) {
	image := []byte("jpeg-bytes")
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	body := fmt.Sprintf(`{"slipImage":%q}`, uri)
	r := httptest.NewRequest(http.MethodPost, "/payment/topup", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	got, err := readSlipImage(r)
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestReadSlipImage_JSONBadBase64Rejected(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/payment/topup", strings.NewReader(`{"slipImage":"!!not-base64!!"}`))
	r.Header.Set("Content-Type", "application/json")

	_, err := readSlipImage(r)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestReadSlipImage_JSONMissingFieldRejected(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/payment/topup", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")

	_, err := readSlipImage(r)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestReadSlipImage_EmptyBodyRejected(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/payment/topup", nil)
	_, err := readSlipImage(r)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

// --- subjectIDFromContext Tests ---

func TestSubjectIDFromContext_NoSubject(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := subjectIDFromContext(r)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}
