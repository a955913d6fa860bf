package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

func TestNewTelegramNotifierRequiresCredentials(t *testing.T) {
	_, err := NewTelegramNotifier(core.TelegramConfig{ChatID: "123"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewTelegramNotifier(core.TelegramConfig{Token: "abc"}, zap.NewNop())
	assert.Error(t, err)

	n, err := NewTelegramNotifier(core.TelegramConfig{Token: "abc", ChatID: "123"}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestSendPhoto(t *testing.T) {
	var gotPath, gotChatID, gotCaption string
	var gotPhoto []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotChatID = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")

		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "alert.jpg", header.Filename)

		buf := make([]byte, header.Size)
		file.Read(buf)
		gotPhoto = buf

		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(core.TelegramConfig{Token: "abc", ChatID: "123"}, zap.NewNop())
	require.NoError(t, err)
	n.baseURL = srv.URL

	err = n.SendPhoto(context.Background(), []byte{0xff, 0xd8, 0xff}, "Motion detected on camera front")
	require.NoError(t, err)

	assert.Equal(t, "/botabc/sendPhoto", gotPath)
	assert.Equal(t, "123", gotChatID)
	assert.Equal(t, "Motion detected on camera front", gotCaption)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, gotPhoto)
}

func TestSendPhotoAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(core.TelegramConfig{Token: "abc", ChatID: "123"}, zap.NewNop())
	require.NoError(t, err)
	n.baseURL = srv.URL

	err = n.SendPhoto(context.Background(), []byte{0xff}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
