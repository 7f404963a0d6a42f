package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Participant lists are stored as a comma-joined TEXT column rather than
// a join table, matching the rest of this projection's "denormalised
// analytics row" shape — it is never queried relationally, only fetched
// whole by round id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveRound(ctx context.Context, r *RoundRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO round_records (
			round_id, participants, keeper,
			per_share_wei, payout_total_wei, num_eligible, pot_after_wei,
			sponsor_address, sponsor_amount_wei, sponsor_message,
			participant_payout_failures, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (round_id) DO UPDATE SET
			participants = EXCLUDED.participants,
			keeper = EXCLUDED.keeper,
			per_share_wei = EXCLUDED.per_share_wei,
			payout_total_wei = EXCLUDED.payout_total_wei,
			num_eligible = EXCLUDED.num_eligible,
			pot_after_wei = EXCLUDED.pot_after_wei,
			sponsor_address = EXCLUDED.sponsor_address,
			sponsor_amount_wei = EXCLUDED.sponsor_amount_wei,
			sponsor_message = EXCLUDED.sponsor_message,
			participant_payout_failures = EXCLUDED.participant_payout_failures,
			ended_at = EXCLUDED.ended_at`,
		r.RoundID, strings.Join(r.Participants, ","), r.Keeper,
		r.PerShareWei, r.PayoutTotalWei, r.NumEligible, r.PotAfterWei,
		r.SponsorAddress, r.SponsorAmount, r.SponsorMessage,
		r.ParticipantPayoutFailures, r.EndedAt,
	)
	return err
}

func (s *PostgresStore) GetRound(ctx context.Context, roundID uint64) (*RoundRecord, error) {
	var r RoundRecord
	var participants string

	err := s.pool.QueryRow(ctx,
		`SELECT round_id, participants, keeper,
		        per_share_wei, payout_total_wei, num_eligible, pot_after_wei,
		        sponsor_address, sponsor_amount_wei, sponsor_message,
		        participant_payout_failures, ended_at
		 FROM round_records WHERE round_id = $1`, roundID).
		Scan(&r.RoundID, &participants, &r.Keeper,
			&r.PerShareWei, &r.PayoutTotalWei, &r.NumEligible, &r.PotAfterWei,
			&r.SponsorAddress, &r.SponsorAmount, &r.SponsorMessage,
			&r.ParticipantPayoutFailures, &r.EndedAt)
	if err != nil {
		return nil, fmt.Errorf("get round %d: %w", roundID, err)
	}

	r.Participants = splitParticipants(participants)
	r.deriveEtherFields()
	return &r, nil
}

func (s *PostgresStore) ListRounds(ctx context.Context, limit int) ([]RoundRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT round_id, participants, keeper,
		        per_share_wei, payout_total_wei, num_eligible, pot_after_wei,
		        sponsor_address, sponsor_amount_wei, sponsor_message,
		        participant_payout_failures, ended_at
		 FROM round_records ORDER BY round_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var r RoundRecord
		var participants string
		if err := rows.Scan(&r.RoundID, &participants, &r.Keeper,
			&r.PerShareWei, &r.PayoutTotalWei, &r.NumEligible, &r.PotAfterWei,
			&r.SponsorAddress, &r.SponsorAmount, &r.SponsorMessage,
			&r.ParticipantPayoutFailures, &r.EndedAt); err != nil {
			return nil, err
		}
		r.Participants = splitParticipants(participants)
		r.deriveEtherFields()
		out = append(out, r)
	}
	return out, rows.Err()
}

func splitParticipants(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
