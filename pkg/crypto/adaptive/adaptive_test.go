package adaptive

import (
	"bytes"
	"errors"
	"testing"
)

var key32 = func() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}()

func TestNew(t *testing.T) {
	c, err := New(key32)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Type() != CipherAESGCM && c.Type() != CipherChaCha20 {
		t.Errorf("New() type = %q, want a known cipher", c.Type())
	}
}

func TestNewWithType(t *testing.T) {
	tests := []struct {
		name    string
		typ     CipherType
		key     []byte
		wantErr bool
	}{
		{"aes-gcm 256", CipherAESGCM, key32, false},
		{"aes-gcm 128", CipherAESGCM, key32[:16], false},
		{"aes-gcm bad key", CipherAESGCM, key32[:10], true},
		{"chacha20", CipherChaCha20, key32, false},
		{"chacha20 short key", CipherChaCha20, key32[:16], true},
		{"unknown", CipherType("rot13"), key32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewWithType(tt.key, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWithType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.Type() != tt.typ {
				t.Errorf("Type() = %q, want %q", c.Type(), tt.typ)
			}
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		c, err := NewWithType(key32, typ)
		if err != nil {
			t.Fatalf("NewWithType(%s) error = %v", typ, err)
		}

		tests := []struct {
			name      string
			plaintext []byte
			aad       []byte
		}{
			{"empty", []byte{}, nil},
			{"record", []byte(`{"userUuid":"u1","authKey":"tok1"}`), []byte("auth.auth")},
			{"large", bytes.Repeat([]byte("A"), 1024), nil},
		}

		for _, tt := range tests {
			t.Run(string(typ)+"/"+tt.name, func(t *testing.T) {
				ciphertext, err := c.Encrypt(tt.plaintext, tt.aad)
				if err != nil {
					t.Fatalf("Encrypt() error = %v", err)
				}
				plaintext, err := c.Decrypt(ciphertext, tt.aad)
				if err != nil {
					t.Fatalf("Decrypt() error = %v", err)
				}
				if !bytes.Equal(plaintext, tt.plaintext) {
					t.Errorf("Decrypt() = %q, want %q", plaintext, tt.plaintext)
				}
			})
		}
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	c, err := NewWithType(key32, CipherChaCha20)
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := c.Encrypt([]byte("secret message"), []byte("aad"))
	if err != nil {
		t.Fatal(err)
	}

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF
	if _, err := c.Decrypt(tampered, []byte("aad")); err == nil {
		t.Error("Decrypt() should fail for tampered ciphertext")
	}
	if _, err := c.Decrypt(ciphertext, []byte("other")); err == nil {
		t.Error("Decrypt() should fail for wrong additional data")
	}
	if _, err := c.Decrypt([]byte{1, 2}, nil); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("Decrypt() short input error = %v, want ErrCiphertextTooShort", err)
	}
}

func TestEncrypt_Uniqueness(t *testing.T) {
	c, err := New(key32)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := c.Encrypt([]byte("same"), nil)
	b, _ := c.Encrypt([]byte("same"), nil)
	if bytes.Equal(a, b) {
		t.Error("Encrypt() should use a fresh nonce per call")
	}
}

func TestDeriveKey(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}

	k1, err := DeriveKey([]byte("correct horse"), salt)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	k2, _ := DeriveKey([]byte("correct horse"), salt)
	if !bytes.Equal(k1, k2) {
		t.Error("DeriveKey() should be deterministic for the same salt")
	}
	if len(k1) != 32 {
		t.Errorf("DeriveKey() length = %d, want 32", len(k1))
	}

	k3, _ := DeriveKey([]byte("battery staple"), salt)
	if bytes.Equal(k1, k3) {
		t.Error("DeriveKey() should differ for different passphrases")
	}

	if _, err := DeriveKey([]byte("short"), salt); !errors.Is(err, ErrPassphraseTooWeak) {
		t.Errorf("DeriveKey() weak passphrase error = %v", err)
	}
	if _, err := DeriveKey([]byte("correct horse"), salt[:4]); !errors.Is(err, ErrInvalidSalt) {
		t.Errorf("DeriveKey() bad salt error = %v", err)
	}
}
