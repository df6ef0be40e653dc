/*
Package domain contains the core models shared by the flag backends and the
fault injection pipeline.

It is kept free of I/O and persistence concerns, following Hexagonal
Architecture principles.

# Key Entities

  - Flag: A named boolean toggle as stored by a backend (memory, Redis, remote service).
  - FlagName: The case-sensitive identifier a fault behavior is gated by.
*/
package domain
