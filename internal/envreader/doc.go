// Package envreader reads environment variables with default fallback,
// literal evaluation and typed coercion to booleans and numbers.
//
// Booleans use a strict allow-list while numbers go through the general
// literal grammar and are type checked afterwards, so "None" is a type error
// for ReadNumber but "maybe" is a conversion error for ReadBool.
package envreader
