package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashAndCheckOTPCode(t *testing.T) {
	hash, err := HashOTPCode("042137")
	if err != nil {
		t.Fatalf("HashOTPCode: %v", err)
	}
	if hash == "042137" {
		t.Fatal("hash must not equal the code")
	}
	if !CheckOTPCode(hash, "042137") {
		t.Fatal("correct code rejected")
	}
	if CheckOTPCode(hash, "042138") {
		t.Fatal("near-miss code accepted")
	}
}
