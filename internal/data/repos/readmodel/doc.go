// Package readmodel holds the relational repositories behind the scope
// projection. Only the projector writes through them; queries read.
package readmodel
