// Package server exposes deepfake detection over HTTP.
//
// Every detection route accepts a JSON body {"media": "<data URI or base64>"}
// and answers with the normalized verdict shape from package model. Errors
// are returned as {"error": "<message>"} with a status code derived from the
// sentinel errors of packages media and provider.
package server
