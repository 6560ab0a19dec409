package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mockline/internal/app"
	"mockline/internal/db"
	"mockline/internal/server"
)

// Scratch check: boots the API with auth enabled and fires one
// authenticated run request against a throwaway workspace.
func main() {
	workspace := "/tmp/mockline-check"
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		panic(err)
	}
	c, err := app.Open(workspace, "")
	if err != nil {
		panic(err)
	}
	defer c.Close()
	c.Config.PathToSaveFiles = workspace
	jwtSecret := "test-secret"
	h, err := server.New(server.Config{
		Engine: c.Engine,
		Auth:   server.AuthConfig{JWTSecret: jwtSecret},
	})
	if err != nil {
		panic(err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	claims := jwt.RegisteredClaims{
		Subject:   "smoketest",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}

	body := map[string]any{
		"files_count": 2,
		"data_lines":  5,
		"schema":      `{"ts": "timestamp:", "name": "str:rand", "age": "int:rand(1,5)"}`,
	}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v0/runs", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer res.Body.Close()
	var resp any
	_ = json.NewDecoder(res.Body).Decode(&resp)
	fmt.Printf("status=%d resp=%v\n", res.StatusCode, resp)
}
