package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	plaintext := []byte("# Netscape HTTP Cookie File\nexample.com\tTRUE\t/\tFALSE\t0\tsid\tabc")

	ciphertext, err := Encrypt(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if bytes.Contains(ciphertext, []byte("sid\tabc")) {
		t.Error("ciphertext leaks plaintext")
	}
	if !IsEncrypted(ciphertext) {
		t.Error("IsEncrypted should recognize our own output")
	}

	got, err := Decrypt(ciphertext, "correct horse")
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("round trip did not preserve plaintext")
	}
}

func TestDecrypt_WrongPassphrase(t *testing.T) {
	ciphertext, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Decrypt(ciphertext, "wrong"); err != ErrDecryptFailed {
		t.Errorf("err = %v, want ErrDecryptFailed", err)
	}
}

func TestDecrypt_NotABundle(t *testing.T) {
	if _, err := Decrypt([]byte("just a plain cookie file"), "pw"); err != ErrInvalidMagic {
		t.Errorf("err = %v, want ErrInvalidMagic", err)
	}
	if _, err := Decrypt([]byte("x"), "pw"); err != ErrInvalidMagic {
		t.Errorf("short input err = %v, want ErrInvalidMagic", err)
	}
}

func TestEncryptFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cookies.txt")
	dst := filepath.Join(dir, "cookies.enc")

	if err := os.WriteFile(src, []byte("cookie data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := EncryptFile(src, dst, "pw"); err != nil {
		t.Fatalf("EncryptFile failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !IsEncrypted(data) {
		t.Error("destination file is not encrypted")
	}

	plain, err := Decrypt(data, "pw")
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != "cookie data" {
		t.Errorf("decrypted = %q", plain)
	}
}

func TestIsEncrypted_PlainData(t *testing.T) {
	if IsEncrypted([]byte("plain")) {
		t.Error("plain data misidentified as encrypted")
	}
	if IsEncrypted(nil) {
		t.Error("nil misidentified as encrypted")
	}
}
