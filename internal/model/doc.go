// Package model defines the normalized verdict shapes returned by deepscan.
//
// Each detection vendor answers with its own JSON contract. The provider
// package maps those contracts onto Result, so HTTP clients, reports and the
// history database only ever see one shape.
package model
