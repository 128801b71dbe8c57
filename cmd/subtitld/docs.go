package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           subtitld API
// @version         1.0
// @description     HTTP API for asynchronous subtitle generation with cached ASR models.
//
// @contact.name   subtitld maintainers
// @contact.url    https://github.com/your-org/subtitld
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
