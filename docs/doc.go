// Package docs provides generated OpenAPI documentation.
//
// Promptiverse API
//
//	@title			Promptiverse API
//	@version		1.0
//	@description	Prompt wizard, multi-provider suggestions and prompt library API.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/promptiverse
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/promptiverse/serve.go -o ./swagger --parseDependency --parseInternal
