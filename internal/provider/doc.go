// Package provider forwards images to third-party deepfake detection vendors
// and normalizes their responses into model.Result.
//
// Each vendor is a Detector. Detectors never retry and never return partial
// results: a vendor call either yields a complete Result or an error.
//
// Supported vendors:
//   - Reality Defender (RealityDefender): JSON body with a data URI,
//     authenticated with the X-API-Key header
//   - Sightengine (Sightengine): multipart upload with api_user/api_secret
//
// All detectors share one HTTP client built by NewHTTPClient, which applies
// the request timeout, User-Agent and optional egress proxy.
package provider
