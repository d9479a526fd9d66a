package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/pkg/botapi"
)

type fakeBotClient struct {
	getMeErr error
	sendErr  error
	calls    []string
	last     botapi.Upload
}

func (f *fakeBotClient) GetMe(ctx context.Context) (*botapi.User, error) {
	f.calls = append(f.calls, "getMe")
	if f.getMeErr != nil {
		return nil, f.getMeErr
	}
	return &botapi.User{ID: 1, IsBot: true}, nil
}

func (f *fakeBotClient) SendMessage(ctx context.Context, chatID int64, text string) (*botapi.Message, error) {
	f.calls = append(f.calls, "sendMessage")
	return &botapi.Message{MessageID: 1}, f.sendErr
}

func (f *fakeBotClient) SendVideo(ctx context.Context, req botapi.Upload) (*botapi.Message, error) {
	f.calls = append(f.calls, "sendVideo")
	f.last = req
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &botapi.Message{MessageID: 1}, nil
}

func (f *fakeBotClient) SendAudio(ctx context.Context, req botapi.Upload) (*botapi.Message, error) {
	f.calls = append(f.calls, "sendAudio")
	f.last = req
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &botapi.Message{MessageID: 1}, nil
}

func (f *fakeBotClient) SendDocument(ctx context.Context, req botapi.Upload) (*botapi.Message, error) {
	f.calls = append(f.calls, "sendDocument")
	f.last = req
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &botapi.Message{MessageID: 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStandardTransport_PicksCallByContainer(t *testing.T) {
	tests := []struct {
		ext      string
		wantCall string
	}{
		{"mp4", "sendVideo"},
		{"webm", "sendVideo"},
		{"mp3", "sendAudio"},
		{"m4a", "sendAudio"},
		{"bin", "sendDocument"},
		{"", "sendDocument"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			client := &fakeBotClient{}
			tr := NewStandardTransport(client, discardLogger())

			err := tr.Send(context.Background(), Destination{ChatID: 5, Caption: "c"}, &domain.MediaArtifact{
				Path: "/tmp/a." + tt.ext,
				Ext:  tt.ext,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(client.calls) != 1 || client.calls[0] != tt.wantCall {
				t.Errorf("calls = %v, want [%s]", client.calls, tt.wantCall)
			}
			if client.last.ChatID != 5 || client.last.Caption != "c" {
				t.Errorf("upload = %+v", client.last)
			}
		})
	}
}

func TestStandardTransport_MapsTooLarge(t *testing.T) {
	client := &fakeBotClient{sendErr: botapi.ErrTooLarge}
	tr := NewStandardTransport(client, discardLogger())

	err := tr.Send(context.Background(), Destination{ChatID: 1}, &domain.MediaArtifact{Ext: "mp4"})
	if !errors.Is(err, domain.ErrTooLarge) {
		t.Errorf("err = %v, want domain.ErrTooLarge", err)
	}
}

func TestAlternateTransport_Alive(t *testing.T) {
	alive := NewAlternateTransport(&fakeBotClient{}, discardLogger())
	if err := alive.Alive(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	dead := NewAlternateTransport(&fakeBotClient{getMeErr: errors.New("connection refused")}, discardLogger())
	if err := dead.Alive(context.Background()); !errors.Is(err, domain.ErrAlternateUnavailable) {
		t.Errorf("err = %v, want ErrAlternateUnavailable", err)
	}
}
