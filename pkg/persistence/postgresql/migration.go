package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Flow definitions. The graph (nodes + edges) is stored as one
			-- JSONB document: it is read and written as a unit, matching the
			-- atomic mutation model.
			CREATE TABLE flows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active')),
				graph JSONB NOT NULL DEFAULT '{"nodes": [], "edges": []}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_flows_status ON flows(status);
			CREATE INDEX idx_flows_created_at ON flows(created_at);
			CREATE INDEX idx_flows_deleted_at ON flows(deleted_at);
		`,
		2: `
			-- Contact activations. The primary key enforces at most one
			-- record per (flow, contact) pair; idempotent admission rides on
			-- an upsert against it.
			CREATE TABLE contact_activations (
				flow_id UUID NOT NULL,
				contact VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'exited')),
				current_node_id VARCHAR(255),
				entered_at TIMESTAMP WITH TIME ZONE NOT NULL,
				exited_at TIMESTAMP WITH TIME ZONE,
				PRIMARY KEY (flow_id, contact)
			);

			CREATE INDEX idx_contact_activations_entered_at
				ON contact_activations(flow_id, entered_at DESC);
		`,
	}
}
