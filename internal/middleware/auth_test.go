package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/sca-bank/pkg/configpkg"
	"github.com/go-petr/sca-bank/pkg/randompkg"
	"github.com/go-petr/sca-bank/pkg/tokenpkg"
	"github.com/go-petr/sca-bank/pkg/web"
)

func newTestMaker(t *testing.T, tokenType string) tokenpkg.Maker {
	t.Helper()

	config := configpkg.Config{TokenType: tokenType, TokenSymmetricKey: randompkg.String(32)}

	maker, err := tokenpkg.NewMaker(config)
	if err != nil {
		t.Fatalf("tokenpkg.NewMaker(%s) returned error: %v", tokenType, err)
	}

	return maker
}

func TestAuthMiddleware(t *testing.T) {
	const userID = "idp|customer-1"

	type authFunc func(t *testing.T, r *http.Request, maker tokenpkg.Maker) error

	testCases := []struct {
		name           string
		setupAuth      authFunc
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "NoHeader",
			setupAuth:      func(*testing.T, *http.Request, tokenpkg.Maker) error { return nil },
			wantStatusCode: http.StatusUnauthorized,
			wantError:      ErrAuthHeaderNotFound.Error(),
		},
		{
			name: "MissingToken",
			setupAuth: func(_ *testing.T, r *http.Request, _ tokenpkg.Maker) error {
				r.Header.Set(AuthHeaderKey, AuthTypeBearer)
				return nil
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      ErrBadAuthHeaderFormat.Error(),
		},
		{
			name: "EmptyScheme",
			setupAuth: func(_ *testing.T, r *http.Request, maker tokenpkg.Maker) error {
				return AddAuthorization(r, maker, "", userID, time.Minute)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      ErrBadAuthHeaderFormat.Error(),
		},
		{
			name: "BasicScheme",
			setupAuth: func(_ *testing.T, r *http.Request, maker tokenpkg.Maker) error {
				return AddAuthorization(r, maker, "basic", userID, time.Minute)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      ErrUnsupportedAuthType.Error(),
		},
		{
			name: "Expired",
			setupAuth: func(_ *testing.T, r *http.Request, maker tokenpkg.Maker) error {
				return AddAuthorization(r, maker, AuthTypeBearer, userID, -time.Minute)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      tokenpkg.ErrExpiredToken.Error(),
		},
		{
			name: "SignedWithOtherKey",
			setupAuth: func(t *testing.T, r *http.Request, maker tokenpkg.Maker) error {
				var other tokenpkg.Maker
				if _, ok := maker.(*tokenpkg.JWTMaker); ok {
					other = newTestMaker(t, configpkg.TokenTypeJWT)
				} else {
					other = newTestMaker(t, configpkg.TokenTypePaseto)
				}

				return AddAuthorization(r, other, AuthTypeBearer, userID, time.Minute)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      tokenpkg.ErrInvalidToken.Error(),
		},
		{
			name: "UppercaseScheme",
			setupAuth: func(_ *testing.T, r *http.Request, maker tokenpkg.Maker) error {
				return AddAuthorization(r, maker, "Bearer", userID, time.Minute)
			},
			wantStatusCode: http.StatusOK,
		},
	}

	gin.SetMode(gin.ReleaseMode)

	for _, tokenType := range []string{configpkg.TokenTypePaseto, configpkg.TokenTypeJWT} {
		maker := newTestMaker(t, tokenType)

		server := gin.New()
		server.GET("/whoami", AuthMiddleware(maker), func(gctx *gin.Context) {
			gctx.JSON(http.StatusOK, web.Response{Data: UserID(gctx)})
		})

		for _, tc := range testCases {
			t.Run(tokenType+"/"+tc.name, func(t *testing.T) {
				t.Parallel()

				request, err := http.NewRequest(http.MethodGet, "/whoami", nil)
				if err != nil {
					t.Fatalf("http.NewRequest returned error: %v", err)
				}

				if err := tc.setupAuth(t, request, maker); err != nil {
					t.Fatalf("setupAuth returned error: %v", err)
				}

				recorder := httptest.NewRecorder()
				server.ServeHTTP(recorder, request)

				if recorder.Code != tc.wantStatusCode {
					t.Errorf("status = %d, want %d", recorder.Code, tc.wantStatusCode)
				}

				var got web.Response
				if err := json.NewDecoder(recorder.Body).Decode(&got); err != nil {
					t.Fatalf("decoding response body: %v", err)
				}

				if got.Error != tc.wantError {
					t.Errorf("error = %q, want %q", got.Error, tc.wantError)
				}

				if tc.wantStatusCode == http.StatusOK && got.Data != userID {
					t.Errorf("data = %v, want %q", got.Data, userID)
				}
			})
		}
	}
}
