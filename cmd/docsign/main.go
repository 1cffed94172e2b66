package main

import _ "github.com/joho/godotenv/autoload"

// @title Document Signing API
// @version 1.0
// @description Document registry with a local file store and signature capture.
// @BasePath /
func main() {
	Execute()
}
