package botapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(serverURL string) *HTTPClient {
	return NewClient(Config{Token: "123:abc", BaseURL: serverURL})
}

func TestGetMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/getMe" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"id":42,"is_bot":true,"username":"grabber_bot"}}`)
	}))
	defer server.Close()

	user, err := newTestClient(server.URL).GetMe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 42 || user.Username != "grabber_bot" {
		t.Errorf("user = %+v", user)
	}
}

func TestGetMe_BadToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).GetMe(context.Background()); err == nil {
		t.Fatal("expected error for unauthorized token")
	}
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.FormValue("chat_id"); got != "777" {
			t.Errorf("chat_id = %q", got)
		}
		if got := r.FormValue("text"); got != "hello" {
			t.Errorf("text = %q", got)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":9}}`)
	}))
	defer server.Close()

	msg, err := newTestClient(server.URL).SendMessage(context.Background(), 777, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.MessageID != 9 {
		t.Errorf("message_id = %d, want 9", msg.MessageID)
	}
}

func TestSendVideo_MultipartFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/sendVideo" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		if got := r.FormValue("chat_id"); got != "777" {
			t.Errorf("chat_id = %q", got)
		}
		if got := r.FormValue("caption"); got != "a clip" {
			t.Errorf("caption = %q", got)
		}
		file, header, err := r.FormFile("video")
		if err != nil {
			t.Fatalf("video part: %v", err)
		}
		defer file.Close()
		if header.Filename != "clip.mp4" {
			t.Errorf("filename = %q", header.Filename)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":10}}`)
	}))
	defer server.Close()

	msg, err := newTestClient(server.URL).SendVideo(context.Background(), Upload{
		ChatID:   777,
		FilePath: path,
		Caption:  "a clip",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.MessageID != 10 {
		t.Errorf("message_id = %d, want 10", msg.MessageID)
	}
}

func TestSendAudio_UsesAudioField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("audio-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("audio part: %v", err)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":11}}`)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).SendAudio(context.Background(), Upload{ChatID: 1, FilePath: path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.mp4")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "api error code 413",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				fmt.Fprint(w, `{"ok":false,"error_code":413,"description":"Request Entity Too Large"}`)
			},
		},
		{
			name: "description only",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: file is too large"}`)
			},
		},
		{
			name: "bare 413 without envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestClient(server.URL).SendVideo(context.Background(), Upload{ChatID: 1, FilePath: path})
			if !errors.Is(err, ErrTooLarge) {
				t.Errorf("err = %v, want ErrTooLarge", err)
			}
		})
	}
}

func TestUpload_MissingFile(t *testing.T) {
	client := NewClient(Config{Token: "t", BaseURL: "http://127.0.0.1:0"})
	_, err := client.SendVideo(context.Background(), Upload{ChatID: 1, FilePath: "/does/not/exist.mp4"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
