package main

//go:generate swag init -g cmd/sso/main.go -o docs

// @title           Fun Profile SSO API
// @version         1.0.0
// @description     Cross-platform credentials, introspection, state sync and ledger.
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
