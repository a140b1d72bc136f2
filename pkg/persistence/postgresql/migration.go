package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create documents table
			CREATE TABLE documents (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_component BOOLEAN NOT NULL DEFAULT false,
				data JSONB,
				last_tested_version VARCHAR(64),
				store_linked BOOLEAN NOT NULL DEFAULT false,
				date_created TIMESTAMP WITH TIME ZONE,
				updated_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_documents_is_component ON documents(is_component);
			CREATE INDEX idx_documents_date_created ON documents(date_created);
		`,
	}
}
