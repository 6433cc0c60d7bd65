/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"syscall"
	"time"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// drainErrors logs handler write failures until errs is closed. Clients
// hanging up mid-response are routine and only logged when verbose.
func drainErrors(cfg *Config, errs <-chan error) {
	for err := range errs {
		if isClientGone(err) {
			logf(cfg, "ERROR: %v", err)

			continue
		}

		log.Printf("%s | ERROR: %v", time.Now().Format(logDate), err)
	}
}

func isClientGone(err error) bool {
	var opErr *net.OpError

	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.As(err, &opErr)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/puzzle\">%s</a></body></html>", body))

	return htmlBody.String()
}
