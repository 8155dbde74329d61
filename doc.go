/*
Package pester documents the Pester module.

This module is CLI-first and ships the pester command:

	go install github.com/pesterhq/pester/cmd/pester@latest

Most implementation packages in this repository are internal and are not a
stable public Go API.
*/
package pester
