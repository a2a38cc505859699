package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		lang string
		id   string
		want string
	}{
		{"en", "AppTitle", "Parley"},
		{"en", "ErrConflict", "That can't be done right now. Please refresh and try again."},
		{"ru", "AppTitle", "Беседа"},
		{"ru", "KeepGoing", "Отличный ответ!"},
	}
	for _, tt := range tests {
		ctx := initLang(t, tt.lang)
		if got := T(ctx, tt.id); got != tt.want {
			t.Errorf("[%s] T(%s) = %q, want %q", tt.lang, tt.id, got, tt.want)
		}
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "PointsEarned", 1); got != "You earned 1 point." {
		t.Errorf("Tp(PointsEarned, 1) = %q", got)
	}
	if got := Tp(ctx, "PointsEarned", 30); got != "You earned 30 points." {
		t.Errorf("Tp(PointsEarned, 30) = %q", got)
	}

	ctx = initLang(t, "ru")
	if got := Tp(ctx, "PointsEarned", 15); got != "Вы заработали 15 очков." {
		t.Errorf("[ru] Tp(PointsEarned, 15) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "Welcome", map[string]any{"Name": "Ana"})
	if got != "Welcome back, Ana!" {
		t.Errorf("Td(Welcome) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want the ID back", got)
	}
}

func TestMiddlewareNegotiates(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "AppTitle")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.5")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Беседа" {
		t.Errorf("Accept-Language ru: got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Parley" {
		t.Errorf("unsupported language should fall back to en: got %q", got)
	}
}

func TestLanguages(t *testing.T) {
	initLang(t, "en")
	if n := len(Languages()); n != 2 {
		t.Errorf("Languages() has %d tags, want 2", n)
	}
}
