/*
Package ports defines the driven ports (interfaces) of faultline.

These interfaces decouple the fault pipeline from the concrete flag backends,
allowing the same middleware to run against an in-memory registry, Redis or a
remote flag service.

# Key Interfaces

  - FlagProvider: Answers "is this flag on?" for the fault middleware. Never fails on a miss.
  - FlagStore: CRUD-style access to flag records, implemented by the backend adapters.
  - FlagSeeder, FlagToggler: optional capabilities for seeding and atomic toggles.
*/
package ports
