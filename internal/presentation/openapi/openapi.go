// Package openapi REST APIのOpenAPI定義を埋め込んで提供する
package openapi

import _ "embed"

// Spec OpenAPI 3.0定義（YAML）
//
//go:embed openapi.yaml
var Spec []byte
