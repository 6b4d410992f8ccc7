package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// Database schema overview:
// 1. users - analysts/reviewers with cookie-based authentication
// 2. agents - LLM configurations (public when user_id is NULL)
// 3. model_profiles - per provider/model timeouts, token limits and chunking strategy
// 4. agent_sets / agent_set_stages - ordered staged orchestration definitions
// 5. agent_sessions - one pipeline run against a document version
// 6. agent_responses / rag_citations - per-invocation outputs and retrieval provenance
// 7. documents / document_versions - analyzed texts, immutable per revision
// 8. test_plans / test_cards - merged pipeline output
// 9. chat_history - analyst chat turns
// 10. calendar_events - compliance deadlines and review slots
