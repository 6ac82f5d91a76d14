/*
Package tinyhttp is a minimal HTTP/1.1 server that answers exactly one request
per TCP connection.

Each accepted connection is sniffed before it is parsed. Connections that do
not open with a known HTTP/1 method, including the HTTP/2 client preface, are
closed without a response. A buffered request is parsed, routed first-match-wins
over the registered patterns, passed through the middleware chain and answered
with a single write before the connection is closed.

Features

  - Protocol sniffing of the first bytes of a connection
  - Ordered routing with :param captures and nested route groups
  - Global and prefix-scoped middleware with short-circuit responses
  - Response builder with gzip for compressible bodies over 1400 bytes
  - JSON, MessagePack and Protocol Buffers request and response bodies
  - Static file table, Prometheus metrics and structured access logs

Quick Start

Basic usage example:

package main

import (
    "context"

    "github.com/searchktools/tinyhttp/app"
    "github.com/searchktools/tinyhttp/config"
    "github.com/searchktools/tinyhttp/core/http"
    "github.com/searchktools/tinyhttp/core/middleware"
)

func main() {
    application := app.New(config.Default(), nil)

    engine := application.Engine()
    engine.Use(middleware.RequestID())
    engine.GET("/user/:id", func(ctx http.Context) []byte {
        return ctx.Respond().Text(ctx.Param("id")).Build()
    })

    application.Run(context.Background())
}

Modules

  - app: Application lifecycle and graceful shutdown
  - config: Defaults, YAML file and environment configuration
  - logging: Structured logging and the access log
  - core: Engine and per-connection driver
  - core/sniff: Protocol detection
  - core/http: Request parsing, context and response building
  - core/codec: Body codecs
  - core/router: Ordered route table and groups
  - core/middleware: Middleware registry and built-ins
  - core/static: Static file providers
  - core/pools: Read buffer pooling
  - core/observability: Prometheus metrics
  - cmd/tinyhttpd: Command-line server
*/
package tinyhttp
