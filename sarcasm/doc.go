// Package sarcasm defines the tools served by the dispatcher: sarcastic
// one-liners chosen at random and a search/fetch pair over a two-entry
// catalog.
//
// Tools are grouped into profiles:
//
//	tools, err := sarcasm.ProfileClassic.Tools(sarcasm.DefaultSource())
//
// Randomness goes through a Source so tests can pin the choice with Fixed.
package sarcasm
