// Package patterns is the catalogue of named reflection patterns.
//
// A Pattern pairs the instructions for the generate and critique steps with
// a round bound. The built in patterns are:
//
//   - reflection: answer, critique, revise (3 rounds)
//   - react: ReAct style Thought/Action reasoning with critique (2 rounds)
//   - cot: write a chain-of-thought prompt, then have the critic apply it (1 round)
//
// Patterns are kept in registration order so listings are stable.
package patterns
