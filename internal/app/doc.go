// Package app provides the Application Composition Layer for the Tradon
// backend.
//
// # Architecture Role
//
// The app package sits above the individual services and is responsible for
// composing them into a running application. It is NOT a business logic
// layer - business logic belongs in internal/app/services/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Main application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── chat/           # Conversation messages for the agent gateway
//	│   ├── identity/       # Host-supplied user identity
//	│   ├── market/         # Normalized market assets
//	│   └── reward/         # Persisted reward snapshot and task catalog
//	├── storage/            # Snapshot store interface and implementations
//	│   ├── interfaces.go   # RewardStore
//	│   ├── memory/         # In-memory implementation for testing
//	│   ├── file/           # Atomic JSON file implementation
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Reward state machine and the two gateways
//	├── httpapi/            # HTTP API handlers and routing
//	├── system/             # Lifecycle management for background runners
//	└── metrics/            # Application metrics
//
// # Responsibilities
//
// The app package is responsible for:
//
//   - Composing the reward service and the gateways with their dependencies
//   - Defining the storage interface the reward service depends on
//   - Providing domain models shared across services
//   - Managing the lifecycle of background runners
package app
