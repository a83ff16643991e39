package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("password1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "password1" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if !CheckPassword("password1", hash) {
		t.Error("correct password must verify")
	}
	if CheckPassword("password2", hash) {
		t.Error("wrong password must not verify")
	}
	if CheckPassword("password1", "not-a-bcrypt-hash") {
		t.Error("garbage hash must not verify")
	}
}
