// Package oracle defines the external response/judging collaborator consumed
// by the arena: a streaming generation interface (Model), a judging interface
// (Evaluator), and the explicit GenerationResult type match execution branches
// on. Provider adapters live in subpackages (anthropic, openai); MockOracle
// offers a deterministic in-memory implementation for tests and examples.
package oracle
