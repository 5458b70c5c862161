package main

// General API documentation for swaggo. Run `swag init -g cmd/modelyaml/docs.go -o docs` to regenerate.
//
// @title           modelyaml API
// @version         1.0
// @description     HTTP API for resolving virtual model definitions into runnable configurations.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
