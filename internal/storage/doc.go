// Package storage provides the port-keyed collection backing the
// imposter registry.
//
// A PortStore maps TCP/UDP port numbers to arbitrary values and is safe
// for concurrent use. The registry stores one running imposter per port;
// listing is always in ascending port order so admin output is stable.
package storage
