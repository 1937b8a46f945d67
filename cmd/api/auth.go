package main

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

type createTokenPayload struct {
	Account string `json:"account" validate:"required,min=1,max=128"`
}

// createTokenHandler exchanges a pre-authenticated account id for a token
// pair. The endpoint sits behind the boundary layer's basic credential; the
// core performs no identity proofing of its own.
func (app *application) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload createTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(payload.Account)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

type refreshTokenPayload struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload refreshTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	token, err := app.authenticator.ValidateRefreshToken(payload.RefreshToken)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}
	claims, _ := token.Claims.(jwt.MapClaims)
	account, _ := claims["sub"].(string)
	if account == "" {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("refresh token has no subject"))
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(account)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}
